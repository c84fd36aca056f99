/*
Copyright 2024 The Tidemark Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidemark/tidemark/pkg/batch"
	"github.com/tidemark/tidemark/pkg/config"
	"github.com/tidemark/tidemark/pkg/engine"
	"github.com/tidemark/tidemark/pkg/shared/logging"
	"github.com/tidemark/tidemark/pkg/window"
)

// batchInput is one JSON line on stdin.
type batchInput struct {
	EventTime  string           `json:"event_time,omitempty"`
	Columns    map[string][]any `json:"columns"`
	SourceInfo map[string]any   `json:"source_info,omitempty"`
	Schema     map[string]any   `json:"schema,omitempty"`
}

// windowOutput is one emitted window as a JSON line on stdout.
type windowOutput struct {
	Window     windowMeta       `json:"window"`
	Columns    map[string][]any `json:"columns"`
	SourceInfo map[string]any   `json:"source_info,omitempty"`
	Schema     map[string]any   `json:"schema,omitempty"`
}

type windowMeta struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	RowCount int64     `json:"row_count"`
}

func NewWindowCommand() *cobra.Command {
	var (
		configFile      string
		windowType      string
		size            string
		slide           string
		allowedLateness string
		timeField       string
		maxResident     int
	)

	command := &cobra.Command{
		Use:   "window",
		Short: "Groups JSON-line batches from stdin into event-time windows on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger().Named("window")

			cfg := map[string]string{}
			if configFile != "" {
				loaded, err := config.Load(configFile, func(err error) {
					log.Errorw("Failed to reload configuration", zap.Error(err))
				})
				if err != nil {
					return err
				}
				cfg = loaded.GetWindow()
			}
			// flags override the configuration file
			for key, val := range map[string]string{
				"type":             windowType,
				"size":             size,
				"slide":            slide,
				"allowed_lateness": allowedLateness,
				"time_field":       timeField,
			} {
				if val != "" {
					cfg[key] = val
				}
			}

			spec, err := window.SpecFromConfig(cfg)
			if err != nil {
				return err
			}
			eng, err := engine.New(spec,
				engine.WithLogger(log),
				engine.WithMaxResidentWindows(maxResident))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWindow(logging.WithLogger(ctx, log), eng, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	command.Flags().StringVarP(&configFile, "config", "c", "", "pipeline configuration file (YAML)")
	command.Flags().StringVar(&windowType, "type", "", "window type, tumbling or sliding")
	command.Flags().StringVar(&size, "size", "", "window size, e.g. 10s")
	command.Flags().StringVar(&slide, "slide", "", "slide between window starts, sliding only")
	command.Flags().StringVar(&allowedLateness, "allowed-lateness", "", "grace period after window end, e.g. 5s")
	command.Flags().StringVar(&timeField, "time-field", "", "payload column holding event time")
	command.Flags().IntVar(&maxResident, "max-resident-windows", 0, "cap on concurrently open windows, 0 for unbounded")

	return command
}

// runWindow pumps stdin lines through the engine and writes emitted windows
// as JSON lines. The input channel closes on EOF, which triggers the
// end-of-stream flush; a signal cancels without flushing.
func runWindow(ctx context.Context, eng *engine.Engine, r io.Reader, w io.Writer) error {
	log := logging.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan *batch.Batch)
	go func() {
		defer close(in)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			b, err := decodeBatch(line)
			if err != nil {
				log.Warnw("Skipping malformed input line", zap.Error(err))
				continue
			}
			select {
			case in <- b:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Errorw("Failed to read input", zap.Error(err))
		}
	}()

	out := eng.Process(ctx, in)
	for b := range out {
		if err := writeBatch(w, b); err != nil {
			// Unblock the engine and scanner goroutines before returning, a
			// library caller must not leak them on a sink failure.
			cancel()
			for range out {
			}
			return err
		}
	}
	return nil
}

func decodeBatch(line []byte) (*batch.Batch, error) {
	var in batchInput
	if err := json.Unmarshal(line, &in); err != nil {
		return nil, err
	}
	if len(in.Columns) == 0 {
		return nil, fmt.Errorf("batch has no columns")
	}

	sourceInfo := in.SourceInfo
	if sourceInfo == nil {
		sourceInfo = map[string]any{}
	}
	sourceInfo["ingest_id"] = uuid.New().String()

	meta := batch.Metadata{
		batch.MetaSourceInfo: sourceInfo,
		batch.MetaSchema:     in.Schema,
	}
	// An unparsable event_time is not an error: the entry is omitted and the
	// engine falls back to the payload time field or wall clock.
	if in.EventTime != "" {
		if t, err := dateparse.ParseAny(in.EventTime); err == nil {
			meta[batch.MetaEventTime] = t.UTC()
		}
	}

	return batch.New(batch.Columns(in.Columns), meta), nil
}

func writeBatch(w io.Writer, b *batch.Batch) error {
	wm, _ := b.Metadata.Window()
	out := windowOutput{
		Window: windowMeta{Start: wm.Start, End: wm.End, RowCount: wm.RowCount},
	}
	if cols, ok := b.Payload.(batch.Columns); ok {
		out.Columns = cols
	}
	if si := b.Metadata.SourceInfo(); si != nil {
		out.SourceInfo = si
	}
	if sch, ok := b.Metadata[batch.MetaSchema].(map[string]any); ok {
		out.Schema = sch
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
