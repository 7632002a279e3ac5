// Package broadcast relays sink synchronization status from the replica_status topic to
// per-account subscribers.
package broadcast

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StatusMessage is a value of the status topic. Label is the name of the reporting
// connector's target, or the source label when the account itself changed.
type StatusMessage struct {
	UpdatedOn *time.Time `json:"updatedOn"`
	Version   *string    `json:"version"`
	Label     string     `json:"label"`
	Outcome   int32      `json:"outcome"`
}

// Event is a status message addressed to an account, as sent to subscribers.
type Event struct {
	UpdatedOn *time.Time `json:"updatedOn"`
	Version   *string    `json:"version"`
	AccountID string     `json:"accountId"`
	Target    string     `json:"target"`
	Outcome   int32      `json:"outcome"`
}

func NewEvent(accountID string, msg StatusMessage) Event {
	return Event{
		AccountID: accountID,
		Target:    msg.Label,
		Outcome:   msg.Outcome,
		Version:   msg.Version,
		UpdatedOn: msg.UpdatedOn,
	}
}

var (
	ErrEmptyMessage = errors.New("broadcast: empty status message")
	errTruncated    = errors.New("truncated avro record")
)

const wireMagic = 0x00

// DecodeStatus decodes a status topic value. Values framed in the schema registry wire
// format (magic byte, 4-byte schema id) are decoded as the replica_status_continuum Avro
// record; anything else is read as JSON.
func DecodeStatus(value []byte) (StatusMessage, error) {
	if len(value) == 0 {
		return StatusMessage{}, ErrEmptyMessage
	}
	if value[0] == wireMagic && len(value) >= 5 {
		msg, err := decodeAvroStatus(value[5:])
		if err != nil {
			return StatusMessage{}, fmt.Errorf("decode avro status (schema %d): %w", binary.BigEndian.Uint32(value[1:5]), err)
		}
		return msg, nil
	}

	var msg StatusMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return StatusMessage{}, fmt.Errorf("decode json status: %w", err)
	}
	return msg, nil
}

// record fields in order: label string, outcome int, version [null, string],
// updatedOn [null, timestamp-millis]
func decodeAvroStatus(b []byte) (StatusMessage, error) {
	r := avroReader{buf: b}
	var msg StatusMessage

	msg.Label = r.string()
	msg.Outcome = int32(r.long())
	if r.union() {
		v := r.string()
		msg.Version = &v
	}
	if r.union() {
		t := time.UnixMilli(r.long()).UTC()
		msg.UpdatedOn = &t
	}
	if r.err != nil {
		return StatusMessage{}, r.err
	}
	return msg, nil
}

type avroReader struct {
	err error
	buf []byte
}

func (r *avroReader) long() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf)
	if n <= 0 {
		r.err = errTruncated
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *avroReader) string() string {
	n := r.long()
	if r.err != nil {
		return ""
	}
	if n < 0 || int64(len(r.buf)) < n {
		r.err = errTruncated
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}

// union reads a [null, T] branch index and reports whether T follows.
func (r *avroReader) union() bool {
	switch idx := r.long(); {
	case r.err != nil:
		return false
	case idx == 0:
		return false
	case idx == 1:
		return true
	default:
		r.err = fmt.Errorf("invalid union branch %d", idx)
		return false
	}
}
