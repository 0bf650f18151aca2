package display

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/martinemde/codeloop/agentloop"
)

// Printer writes agent events to a terminal.
type Printer struct {
	out      io.Writer
	renderer *Renderer
	sink     *ImageSink
	logger   *slog.Logger
}

// NewPrinter creates a Printer. sink may be nil, in which case images are
// only counted.
func NewPrinter(out io.Writer, renderer *Renderer, sink *ImageSink, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Printer{out: out, renderer: renderer, sink: sink, logger: logger}
}

// Watch renders events until the channel is closed.
func (p *Printer) Watch(events <-chan agentloop.Event) {
	for ev := range events {
		p.Handle(ev)
	}
}

// Handle renders one event.
func (p *Printer) Handle(ev agentloop.Event) {
	r := p.renderer
	switch ev.Kind {
	case agentloop.EventRunStart:
		fmt.Fprintln(p.out, "🚀 Starting ReAct agent")
		fmt.Fprintf(p.out, "📝 Task: %s\n", ev.String("task"))
		fmt.Fprintln(p.out, r.Rule("="))

	case agentloop.EventThought:
		fmt.Fprintln(p.out, r.Box(fmt.Sprintf("Thought (Iteration %d)", ev.Iteration), "🤔", ev.String("text")))

	case agentloop.EventAction:
		fmt.Fprintln(p.out, r.Box("Action", "🛠️", ev.String("code")))

	case agentloop.EventObservation:
		fmt.Fprintln(p.out, r.Box("Result", "📊", ev.String("text")))
		p.images(ev)
		fmt.Fprintln(p.out, r.Rule("-"))

	case agentloop.EventFinalAnswer:
		fmt.Fprintln(p.out, r.Box("Final Answer", "🎯", ev.String("text")))

	case agentloop.EventIterationError:
		fmt.Fprintf(p.out, "❌ Error in iteration %d: %s\n", ev.Iteration, ev.String("error"))

	case agentloop.EventLoopDetection, agentloop.EventWarning:
		fmt.Fprintf(p.out, "⚠️  %s\n", ev.String("message"))

	case agentloop.EventIterationLimit:
		fmt.Fprintf(p.out, "⚠️  Maximum iterations (%v) reached without completion\n", ev.Data["max_iterations"])
	}
}

func (p *Printer) images(ev agentloop.Event) {
	images := ev.Images()
	if len(images) == 0 {
		return
	}
	if p.sink == nil {
		fmt.Fprintf(p.out, "🖼️  %d image(s) not saved (no image directory configured)\n", len(images))
		return
	}
	for _, img := range images {
		path, err := p.sink.Save(ev.RunID, img)
		if err != nil {
			p.logger.Warn("could not save image", "mime_type", img.MIMEType, "error", err)
			fmt.Fprintf(p.out, "🖼️  %s image could not be saved\n", img.MIMEType)
			continue
		}
		fmt.Fprintf(p.out, "🖼️  Saved plot: %s\n", path)
	}
}
