package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readMessage reads one framed payload. contentType is empty when the
// header is absent.
func readMessage(r *bufio.Reader) (payload []byte, contentType string, err error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.EqualFold(strings.TrimSpace(name), "Content-Length"):
			length, err := strconv.Atoi(value)
			if err != nil {
				return nil, "", fmt.Errorf("invalid Content-Length: %w", err)
			}
			contentLength = length
		case strings.EqualFold(strings.TrimSpace(name), "Content-Type"):
			contentType = value
		}
	}
	if contentLength < 0 {
		return nil, "", fmt.Errorf("missing Content-Length header")
	}
	payload = make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, "", err
	}
	return payload, contentType, nil
}

func writeMessage(w io.Writer, contentType string, payload []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\nContent-Type: %s\r\n\r\n", len(payload), contentType)
	if _, err := io.WriteString(w, header+string(payload)); err != nil {
		return err
	}
	return nil
}
