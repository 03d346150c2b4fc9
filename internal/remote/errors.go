package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrTransport marks failures where no response was received.
	ErrTransport = errors.New("remote store unreachable")
	// ErrRejected marks non-2xx responses.
	ErrRejected = errors.New("remote store rejected request")
	// ErrUnauthorized is matched in addition to ErrRejected for 401 and 403.
	ErrUnauthorized = errors.New("remote session not authorized")
	// ErrBadResponse marks 2xx responses whose body could not be decoded.
	ErrBadResponse = errors.New("remote store sent an invalid response")
)

// Error describes one failed call to the remote store. Status is zero for
// transport failures.
type Error struct {
	Op      string
	Method  string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	switch {
	case e.Status == 0:
		errs = append(errs, ErrTransport)
	case e.Status >= 200 && e.Status <= 299:
		errs = append(errs, ErrBadResponse)
	default:
		errs = append(errs, ErrRejected)
		if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
			errs = append(errs, ErrUnauthorized)
		}
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// messageFromBody pulls a human readable message out of an error body: a JSON
// "error" or "message" field when present, the trimmed text otherwise.
func messageFromBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	const max = 512
	if len(text) > max {
		text = text[:max]
		// drop a rune split by the cut
		for len(text) > 0 && !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	return text
}
