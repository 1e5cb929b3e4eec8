package services

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"golang.org/x/sync/errgroup"
)

const (
	// streamBuffer is how many frames the reader may run ahead of the writer.
	streamBuffer = 16
	maxLineSize  = 1 << 20
)

var dataPrefix = []byte("data:")

// Stream is an open upstream event stream.
type Stream struct {
	body io.ReadCloser
}

func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body}
}

// Frame turns one upstream line into an SSE frame.
func Frame(line []byte) []byte {
	out := make([]byte, 0, len(line)+8)
	if !bytes.HasPrefix(line, dataPrefix) {
		out = append(out, "data: "...)
	}
	out = append(out, line...)
	return append(out, '\n', '\n')
}

// Relay copies the stream to w frame by frame, calling flush after every
// frame. It returns when the upstream closes, when a write fails or when ctx
// is cancelled; in the last two cases the upstream body is closed without
// being drained. The body is always closed on return.
func (s *Stream) Relay(ctx context.Context, w io.Writer, flush func()) error {
	defer s.body.Close()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = s.body.Close() })
	defer stop()

	frames := make(chan []byte, streamBuffer)

	g.Go(func() error {
		defer close(frames)

		sc := bufio.NewScanner(s.body)
		sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		for sc.Scan() {
			line := bytes.TrimRight(sc.Bytes(), "\r")
			if len(line) == 0 {
				continue
			}
			select {
			case frames <- Frame(line):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		if err := sc.Err(); err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return err
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case f, ok := <-frames:
				if !ok {
					return nil
				}
				if _, err := w.Write(f); err != nil {
					return err
				}
				if flush != nil {
					flush()
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}

// Close releases the stream without relaying it.
func (s *Stream) Close() error {
	return s.body.Close()
}
