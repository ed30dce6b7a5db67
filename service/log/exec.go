package log

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type execOption struct {
	outl, errl zapcore.Level
	filter     Filter
	keep       int
}

// ExecOption is an option that can be passed to Exec()
type ExecOption func(eo *execOption)

// StdoutLevel sets the level at which stdout should be logged
func StdoutLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.outl = l
	}
}

// StderrLevel sets the level at which stderr should be logged
func StderrLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.errl = l
	}
}

// Filter receives a line of the command and its default level and returns the level to log it at.
// If the last result is true, the line is ignored.
type Filter func(line string, defaultLevel zapcore.Level) (zapcore.Level, bool)

// WithFilter sets a filter on the lines of stdout and stderr
func WithFilter(f Filter) ExecOption {
	return func(eo *execOption) {
		eo.filter = f
	}
}

// KeepErrors appends the last n lines logged at Error level or above to the error returned by Exec
func KeepErrors(n int) ExecOption {
	return func(eo *execOption) {
		eo.keep = n
	}
}

// Exec runs the command and logs its outputs.
// If cmd.Stdout (resp. cmd.Stderr) is not set, the lines are sent to Logger(ctx) at Info (resp. Warn) level by default.
// On ctx cancellation, the cmd is killed and ctx.Err() is returned.
func Exec(ctx context.Context, cmd *exec.Cmd, options ...ExecOption) error {
	opts := execOption{
		outl: zapcore.InfoLevel,
		errl: zapcore.WarnLevel,
	}
	for _, eo := range options {
		eo(&opts)
	}

	ll := &lineLogger{Logger: Logger(ctx), filter: opts.filter, keep: opts.keep}
	var readers []struct {
		r     io.Reader
		level zapcore.Level
	}
	if cmd.Stdout == nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("get stdout pipe: %w", err)
		}
		readers = append(readers, struct {
			r     io.Reader
			level zapcore.Level
		}{stdout, opts.outl})
	}
	if cmd.Stderr == nil {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("get stderr pipe: %w", err)
		}
		readers = append(readers, struct {
			r     io.Reader
			level zapcore.Level
		}{stderr, opts.errl})
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cmd.start: %w", err)
	}

	logwg := sync.WaitGroup{}
	for _, rd := range readers {
		logwg.Add(1)
		go func(r io.Reader, level zapcore.Level) {
			defer logwg.Done()
			ll.logLines(r, level)
		}(rd.r, rd.level)
	}

	done := make(chan error, 1)
	go func() {
		// pipes must be drained before Wait
		logwg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if err := cmd.Process.Kill(); err != nil {
			ll.Sugar().Warnf("kill: %v", err)
		}
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			if errs := ll.errors(); len(errs) > 0 {
				return fmt.Errorf("%w: %s", err, strings.Join(errs, "; "))
			}
		}
		return err
	}
}

const maxLineLength = 64 * 1024

type lineLogger struct {
	*zap.Logger
	filter Filter
	keep   int

	mu   sync.Mutex
	last []string
}

func (l *lineLogger) logLines(r io.Reader, level zapcore.Level) {
	br := bufio.NewReaderSize(r, maxLineLength)
	clipped := false
	for {
		line, err := br.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
			if !clipped {
				l.print(fmt.Sprintf("%s ...[Message clipped]", line), level)
			}
			clipped = true
			continue
		case clipped:
			// end of a clipped line
			clipped = false
		case len(line) > 0:
			l.print(strings.TrimRight(string(line), "\r\n"), level)
		}
		if err != nil {
			return
		}
	}
}

func (l *lineLogger) print(msg string, level zapcore.Level) {
	if l.filter != nil {
		var ignore bool
		if level, ignore = l.filter(msg, level); ignore {
			return
		}
	}
	if ce := l.Check(level, msg); ce != nil {
		ce.Write()
	}
	if l.keep > 0 && level >= zapcore.ErrorLevel {
		l.mu.Lock()
		l.last = append(l.last, msg)
		if len(l.last) > l.keep {
			l.last = l.last[len(l.last)-l.keep:]
		}
		l.mu.Unlock()
	}
}

func (l *lineLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.last...)
}
