package ipcwire

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Response{Msg: "something went wrong"}

	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var got Response
	if err := ReadFrame(bufio.NewReader(&buf), &got); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWriteFramePrefixIsEightHexDigits(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Response{}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	prefix := buf.String()[:lengthPrefixDigits]
	for _, c := range prefix {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("prefix %q contains non-hex-digit %q", prefix, c)
		}
	}
}

func TestCommandDecodeCloneProps(t *testing.T) {
	cmd := Command{
		Type:  CommandClone,
		Props: `{"sessionId":"s1","link":"http://h/","dirName":"/tmp/out","maxLevel":2,"blackListUrls":["tracker/"]}`,
	}

	props, err := cmd.DecodeCloneProps()
	if err != nil {
		t.Fatalf("DecodeCloneProps: %v", err)
	}
	if props.SessionID != "s1" || props.Link != "http://h/" || props.DirName != "/tmp/out" {
		t.Errorf("unexpected props: %+v", props)
	}
	if props.MaxLevel != 2 {
		t.Errorf("MaxLevel = %d, want 2", props.MaxLevel)
	}
	if len(props.BlackListUrls) != 1 || props.BlackListUrls[0] != "tracker/" {
		t.Errorf("BlackListUrls = %v", props.BlackListUrls)
	}
}
