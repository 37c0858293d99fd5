// Package ipcwire implements the length-prefixed JSON framing and the
// command/response shapes the mirroring daemon speaks to its desktop
// front-end.
package ipcwire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
)

// lengthPrefixDigits is the fixed width of the ASCII hex length
// prefix that precedes every frame's JSON payload.
const lengthPrefixDigits = 8

// CommandType enumerates the five command shapes the daemon accepts.
type CommandType string

const (
	CommandClone       CommandType = "CLONE"
	CommandHealthCheck CommandType = "HEALTH_CHECK"
	CommandGetClones   CommandType = "GET_CLONES"
	CommandAbortClone  CommandType = "ABORT_CLONE"
	CommandCloneStatus CommandType = "CLONE_STATUS"
)

// Command is the outer envelope for every frame sent to the daemon.
// Props carries a JSON-encoded string rather than a nested object.
type Command struct {
	Type      CommandType `json:"type"`
	Props     string      `json:"props"`
	KeepAlive bool        `json:"keepAlive,omitempty"`
}

// CloneProps is the decoded shape of a CLONE command's Props field.
type CloneProps struct {
	SessionID string `json:"sessionId"`
	Link      string `json:"link"`
	DirName   string `json:"dirName"`

	MaxStaticFileSize                     int64    `json:"maxStaticFileSize"`
	DownloadStaticResourceWithUnknownSize bool     `json:"downloadStaticResourceWithUnknownSize"`
	ProgressUpdateInterval                int64    `json:"progressUpdateInterval"`
	MaxLevel                              int      `json:"maxLevel"`
	BlackListUrls                         []string `json:"blackListUrls"`
	AbortOnDownloadError                  bool     `json:"abortOnDownloadError"`
}

// SessionProps is the decoded shape of ABORT_CLONE and CLONE_STATUS's
// Props field.
type SessionProps struct {
	SessionID string `json:"sessionId"`
}

// Response is returned for every command. Msg is empty on a plain
// Success, populated with a human-readable reason on Failure.
type Response struct {
	Msg string `json:"msg,omitempty"`
}

// StatusUpdate is one entry of a CLONE_STATUS response's Updates
// slice, mirroring the engine's Update variants flattened for JSON.
type StatusUpdate struct {
	FileName     string         `json:"fileName"`
	BytesWritten uint64         `json:"bytesWritten"`
	FileSize     *uint64        `json:"fileSize,omitempty"`
	Message      *StatusMessage `json:"message,omitempty"`
}

// StatusMessage is the nested message shape inside a StatusUpdate.
type StatusMessage struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
}

// CloneStatusResponse is CLONE_STATUS's success payload.
type CloneStatusResponse struct {
	Updates []StatusUpdate `json:"updates"`
}

// CloneSummary is one entry of a GET_CLONES response.
type CloneSummary struct {
	Title string `json:"title"`
}

// GetClonesResponse is GET_CLONES's success payload.
type GetClonesResponse struct {
	Clones []CloneSummary `json:"clones"`
}

// WriteFrame encodes v as JSON and writes it to w prefixed with its
// byte length as lengthPrefixDigits ASCII hex digits.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding ipc frame")
	}
	prefix := fmt.Sprintf("%0*x", lengthPrefixDigits, len(payload))
	if len(prefix) != lengthPrefixDigits {
		return errors.Newf("ipc payload too large to frame: %d bytes", len(payload))
	}
	if _, err := io.WriteString(w, prefix); err != nil {
		return errors.Wrap(err, "writing ipc length prefix")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "writing ipc payload")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and decodes its
// JSON payload into v.
func ReadFrame(r *bufio.Reader, v any) error {
	prefix := make([]byte, lengthPrefixDigits)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return errors.Wrap(err, "reading ipc length prefix")
	}
	n, err := strconv.ParseUint(string(prefix), 16, 32)
	if err != nil {
		return errors.Wrap(err, "parsing ipc length prefix")
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return errors.Wrap(err, "reading ipc payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(err, "decoding ipc payload")
	}
	return nil
}

// ReadCommand reads one Command frame from r.
func ReadCommand(r *bufio.Reader) (Command, error) {
	var cmd Command
	err := ReadFrame(r, &cmd)
	return cmd, err
}

// DecodeCloneProps unmarshals a CLONE command's Props string.
func (c Command) DecodeCloneProps() (CloneProps, error) {
	var p CloneProps
	if err := json.Unmarshal([]byte(c.Props), &p); err != nil {
		return p, errors.Wrap(err, "decoding clone props")
	}
	return p, nil
}

// DecodeSessionProps unmarshals an ABORT_CLONE or CLONE_STATUS
// command's Props string.
func (c Command) DecodeSessionProps() (SessionProps, error) {
	var p SessionProps
	if err := json.Unmarshal([]byte(c.Props), &p); err != nil {
		return p, errors.Wrap(err, "decoding session props")
	}
	return p, nil
}
