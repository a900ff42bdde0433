// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// externalRecord is the JSON payload decoded from each length-prefixed
// stdout record of the external enumerator protocol.
type externalRecord struct {
	Content []byte            `json:"content"`
	Name    string            `json:"name"`
	Payload map[string]string `json:"payload"`
}

// External spawns a child process and decodes its stdout as a stream of
// u32LE length || JSON-payload records.
type External struct {
	Command []string
	Logger  *slog.Logger
}

// NewExternal returns an External enumerator that runs command (argv[0]
// plus arguments) and reads its protocol stream from stdout.
func NewExternal(command []string, logger *slog.Logger) *External {
	if logger == nil {
		logger = slog.Default()
	}
	return &External{Command: command, Logger: logger}
}

// Enumerate starts the child process and decodes each record from its
// stdout, emitting one (content, Extensible provenance) pair per record.
// The child exiting 0 signals a clean end of stream.
func (e *External) Enumerate(ctx context.Context, cancel *pipeline.CancelToken, emit pipeline.EmitFunc) error {
	if len(e.Command) == 0 {
		return fmt.Errorf("enum: external enumerator command is empty")
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// #nosec G204 - the external enumerator command is operator-configured,
	// not derived from scanned content.
	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("enum: external: stdout pipe: %w", err)
	}

	stderrBuf := &limitedBuffer{max: 16 * 1024}
	cmd.Stderr = stderrBuf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("enum: external: start: %w", err)
	}

	reader := bufio.NewReaderSize(stdout, 256*1024)
	readErr := e.readRecords(ctx, cancel, reader, emit)

	waitErr := cmd.Wait()
	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		return fmt.Errorf("enum: external: command failed: %w (stderr: %s)", waitErr, stderrBuf.String())
	}
	return nil
}

func (e *External) readRecords(ctx context.Context, cancel *pipeline.CancelToken, reader *bufio.Reader, emit pipeline.EmitFunc) error {
	var lenBuf [4]byte
	for i := 0; ; i++ {
		if i%100 == 0 {
			if err := checkCancel(ctx, cancel); err != nil {
				return err
			}
		}

		_, err := io.ReadFull(reader, lenBuf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("enum: external: read length prefix: %w", err)
		}

		n := binary.LittleEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(reader, payload); err != nil {
			return fmt.Errorf("enum: external: read payload: %w", err)
		}

		var rec externalRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("enum: external: decode record: %w", err)
		}

		prov := provenance.NewExtensible(rec.Name, rec.Payload)
		if err := emit(rec.Content, prov); err != nil {
			return err
		}
	}
}

// limitedBuffer accumulates up to max bytes, discarding any overflow, so a
// chatty child process's stderr can't exhaust memory.
type limitedBuffer struct {
	max int
	buf []byte
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - len(b.buf)
	if remaining > 0 {
		if remaining > len(p) {
			remaining = len(p)
		}
		b.buf = append(b.buf, p[:remaining]...)
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return string(b.buf)
}
