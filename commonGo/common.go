package commonGo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/multiversx/mx-chain-logger-go/file"
)

// AttachFileLogger attaches, if required, a log file
func AttachFileLogger(
	log logger.Logger,
	defaultLogsPath string,
	logFilePrefix string,
	saveLogFile bool,
	workingDir string) (FileLoggingHandler, error) {
	var err error
	var logFile FileLoggingHandler
	if saveLogFile {
		argsFileLogging := file.ArgsFileLogging{
			WorkingDir:      workingDir,
			DefaultLogsPath: defaultLogsPath,
			LogFilePrefix:   logFilePrefix,
		}
		logFile, err = file.NewFileLogging(argsFileLogging)
		if err != nil {
			return nil, fmt.Errorf("%w creating a log file", err)
		}
	}

	err = logger.SetDisplayByteSlice(logger.ToHex)
	log.LogIfError(err)

	return logFile, nil
}

// ReadEnvFile loads the env file and copies the values of the keys found in required and optional maps.
// A missing required key is an error, missing optional keys keep their existing value
func ReadEnvFile(envFile string, required map[string]string, optional map[string]string) error {
	err := godotenv.Load(envFile)
	if err != nil {
		return err
	}

	for k := range required {
		val := os.Getenv(k)
		if len(val) == 0 {
			return fmt.Errorf("%s is not set in the .env file", k)
		}

		required[k] = val
	}

	for k := range optional {
		val := os.Getenv(k)
		if len(val) > 0 {
			optional[k] = val
		}
	}

	return nil
}

// PeriodicTask is the handle of a handler called at a fixed period on its own go routine
type PeriodicTask struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartPeriodicTask starts a go routine that calls the provided handler every period until either the
// provided context is done or Stop is called on the returned handle. The first call happens after one period.
func StartPeriodicTask(ctx context.Context, handler func(ctx context.Context), period time.Duration) *PeriodicTask {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &PeriodicTask{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(task.done)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				handler(taskCtx)
			case <-taskCtx.Done():
				return
			}
		}
	}()

	return task
}

// Stop cancels the task and blocks until the go routine exits. After Stop returns the handler is no longer called.
// Safe to call multiple times.
func (task *PeriodicTask) Stop() {
	task.stopOnce.Do(task.cancel)
	<-task.done
}
