package idiommatcher

var _ Logger = (*DiscardLogger)(nil)

// DiscardLogger drops every message. It is the default for analyzers, loaders and
// stores built without a logger.
type DiscardLogger struct{}

func (DiscardLogger) Debug(...any) {}

func (DiscardLogger) Info(...any) {}

func (DiscardLogger) Warn(...any) {}

func (DiscardLogger) Error(...any) {}

func (DiscardLogger) Debugf(string, ...any) {}

func (DiscardLogger) Infof(string, ...any) {}

func (DiscardLogger) Warnf(string, ...any) {}

func (DiscardLogger) Errorf(string, ...any) {}

// orDiscard returns logger, or a DiscardLogger when logger is nil
func orDiscard(logger Logger) Logger {
	if logger == nil {
		return DiscardLogger{}
	}
	return logger
}
