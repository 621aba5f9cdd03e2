package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxEventLogger writes fx lifecycle events through this package.
type FxEventLogger struct{}

// NewFxEventLogger returns an fxevent.Logger backed by this package.
func NewFxEventLogger() fxevent.Logger {
	return FxEventLogger{}
}

// LogEvent implements fxevent.Logger.
func (FxEventLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("fx: OnStart hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: OnStart hook %s took %s", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("fx: OnStop hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: OnStop hook %s took %s", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("fx: supply %s failed: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("fx: provide failed: %v", e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx: invoke %s failed: %v", shortFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		Infof("fx: received %s, stopping", strings.ToUpper(e.Signal.String()))
	case *fxevent.RollingBack:
		Errorf("fx: start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx: start failed: %v", e.Err)
			return
		}
		Debugf("fx: application started")
	}
}

// shortFuncName trims the ".funcN" suffix fx reports for closures.
func shortFuncName(name string) string {
	if idx := strings.LastIndex(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
