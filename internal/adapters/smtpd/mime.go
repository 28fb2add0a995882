package smtpd

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// extractParts pulls the text/plain and text/html bodies out of a message.
// For multipart messages each matching part is concatenated; anything else
// (attachments, nested multiparts) is skipped.
func extractParts(msg *mail.Message) (text, html string) {
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", ""
		}
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			return "", string(body)
		}
		return string(body), ""
	}

	boundary, ok := params["boundary"]
	if !ok {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", ""
		}
		return string(body), ""
	}

	var textBuf, htmlBuf bytes.Buffer
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partType := strings.ToLower(part.Header.Get("Content-Type"))
		switch {
		case strings.Contains(partType, "text/plain"):
			if b, err := io.ReadAll(part); err == nil {
				textBuf.Write(b)
				textBuf.WriteString("\n")
			}
		case strings.Contains(partType, "text/html"):
			if b, err := io.ReadAll(part); err == nil {
				htmlBuf.Write(b)
				htmlBuf.WriteString("\n")
			}
		}
		// Nested multiparts and attachments are skipped.
	}

	return textBuf.String(), htmlBuf.String()
}
