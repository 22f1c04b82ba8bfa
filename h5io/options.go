package h5io

import "github.com/sirupsen/logrus"

// Option configures a read or write call.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

func newOptions(opts []Option) *options {
	o := &options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}
