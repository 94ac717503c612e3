package models

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Direction indicates which way a cursor walks the ordering.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// ErrBadCursor is returned when a cursor token does not match the expected
// tuple shape. It maps to a client error, never a crash.
var ErrBadCursor = fmt.Errorf("malformed pagination cursor")

// EncodeCursor builds an opaque token from a direction and a tuple of
// ordering-key values. Parts are escaped so that the separator cannot
// collide with value content (key paths may contain anything).
func EncodeCursor(direction Direction, parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, string(direction))
	for _, p := range parts {
		escaped = append(escaped, url.QueryEscape(p))
	}
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(escaped, "|")))
}

// DecodeCursor reverses EncodeCursor, enforcing the expected tuple arity.
func DecodeCursor(token string, arity int) (Direction, []string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", nil, ErrBadCursor
	}

	segments := strings.Split(string(raw), "|")
	if len(segments) != arity+1 {
		return "", nil, ErrBadCursor
	}

	direction := Direction(segments[0])
	if direction != DirectionNext && direction != DirectionPrevious {
		return "", nil, ErrBadCursor
	}

	parts := make([]string, 0, arity)
	for _, seg := range segments[1:] {
		part, err := url.QueryUnescape(seg)
		if err != nil {
			return "", nil, ErrBadCursor
		}
		parts = append(parts, part)
	}
	return direction, parts, nil
}

// EncodeJobCursor builds a cursor over the job trigger tuple (job_id, page index).
func EncodeJobCursor(direction Direction, jobID int64, pageIndex int) string {
	return EncodeCursor(direction, strconv.FormatInt(jobID, 10), strconv.Itoa(pageIndex))
}

// DecodeJobCursor reverses EncodeJobCursor.
func DecodeJobCursor(token string) (Direction, int64, int, error) {
	direction, parts, err := DecodeCursor(token, 2)
	if err != nil {
		return "", 0, 0, err
	}
	jobID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", 0, 0, ErrBadCursor
	}
	pageIndex, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, ErrBadCursor
	}
	return direction, jobID, pageIndex, nil
}
