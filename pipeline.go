// End-to-end transcode orchestration: raw frames in, muxed packets out.
package transcode

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FrameReader produces raw video frames until io.EOF. Y4MDemuxer
// satisfies this.
type FrameReader interface {
	ReadFrame() (*Frame, error)
}

// TranscodeStats summarizes a completed pipeline run.
type TranscodeStats struct {
	FramesRead     int64
	PacketsWritten int64
	BytesWritten   int64
}

// Transcode drives frames from src through enc into mux until the source
// is exhausted, then flushes the encoder and finalizes the muxer.
//
// The encoder protocol is not reentrant, so a single goroutine both
// feeds and drains it; a second goroutine owns the muxer so container
// writes overlap with encoding. Cancelling ctx stops the run between
// frames; the muxer is left unfinalized in that case.
func Transcode(ctx context.Context, src FrameReader, enc VideoEncoder, mux Muxer) (TranscodeStats, error) {
	var stats TranscodeStats

	g, ctx := errgroup.WithContext(ctx)
	packets := make(chan *Packet, 16)

	// Encode side: read, send, drain whatever the encoder has ready.
	g.Go(func() error {
		defer close(packets)

		drain := func(final bool) error {
			for {
				pkt, err := enc.ReceivePacket()
				switch {
				case err == io.EOF:
					return io.EOF
				case err == ErrAgain:
					if final {
						continue
					}
					return nil
				case err != nil:
					return err
				}
				select {
				case packets <- pkt:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := src.ReadFrame()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("read frame: %w", err)
			}
			if err := enc.SendFrame(frame.Share()); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
			stats.FramesRead++
			if err := drain(false); err != nil {
				if err == io.EOF {
					return fmt.Errorf("%w: encoder ended before end-of-stream", ErrCodec)
				}
				return err
			}
		}

		if err := enc.SendFrame(nil); err != nil {
			return fmt.Errorf("signal end-of-stream: %w", err)
		}
		if err := drain(true); err != nil && err != io.EOF {
			return err
		}
		return nil
	})

	// Mux side.
	g.Go(func() error {
		for pkt := range packets {
			if err := mux.WritePacket(pkt); err != nil {
				return fmt.Errorf("write packet: %w", err)
			}
			stats.PacketsWritten++
			stats.BytesWritten += int64(len(pkt.Data))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := mux.Finalize(); err != nil {
		return stats, fmt.Errorf("finalize output: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"frames":  stats.FramesRead,
		"packets": stats.PacketsWritten,
		"bytes":   stats.BytesWritten,
	}).Info("transcode complete")

	return stats, nil
}
