package xlkinetics

import "log/slog"

// Options holds configuration for the Processor.
type Options struct {
	layout     *Layout
	layoutName string
	listeners  []ProgressListener
	logger     *slog.Logger
	outputDir  string
}

func defaultOptions() *Options {
	return &Options{
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option configures the Processor.
type Option func(*Options)

// WithLayout sets the layout used to read source sheets.
func WithLayout(l Layout) Option {
	return func(o *Options) {
		l = l.clone()
		o.layout = &l
		o.layoutName = ""
	}
}

// WithLayoutName selects a registered layout by key, e.g. "ratio/v1".
func WithLayoutName(key string) Option {
	return func(o *Options) {
		o.layoutName = key
		o.layout = nil
	}
}

// WithProgress adds a listener notified once per completed unit of work.
func WithProgress(l ProgressListener) Option {
	return func(o *Options) { o.listeners = append(o.listeners, l) }
}

// WithProgressFunc adds a function notified once per completed unit of work.
func WithProgressFunc(fn func(ProgressEvent)) Option {
	return WithProgress(ProgressFunc(fn))
}

// WithLogger sets the logger for diagnostics. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutputDir writes reports to dir instead of beside the source file.
func WithOutputDir(dir string) Option {
	return func(o *Options) { o.outputDir = dir }
}
