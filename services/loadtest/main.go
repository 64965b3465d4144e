package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/iulianpascalau/api-loadtest/commonGo"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/config"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/factory"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/suite"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/urfave/cli"
)

const (
	defaultLogsPath      = "logs"
	logFilePrefix        = "loadtest"
	logFileLifeSpanInSec = 86400 // 24h
	logFileLifeSpanInMB  = 1024  // 1GB
	envLoginUsername     = "LOGIN_USERNAME"
	envLoginPassword     = "LOGIN_PASSWORD"
	envReportAPIKey      = "REPORT_API_KEY"
)

// appVersion should be populated at build time using ldflags
// Usage examples:
// Linux/macOS:
//
//	go build -v -ldflags="-X main.appVersion=$(git describe --all | cut -c7-32)
var appVersion = "undefined"
var fileLogging commonGo.FileLoggingHandler

var (
	helpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
   {{range .Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}
VERSION:
   {{.Version}}
   {{end}}
`

	log = logger.GetOrCreate("loadtest")

	// logLevel defines the logger level
	logLevel = cli.StringFlag{
		Name: "log-level",
		Usage: "This flag specifies the logger `level(s)`. It can contain multiple comma-separated value. For example" +
			", if set to *:INFO the logs for all packages will have the INFO level. However, if set to *:INFO,suite:DEBUG" +
			" the logs for all packages will have the INFO level, excepting the suite package which will receive a DEBUG" +
			" log level.",
		Value: "*:" + logger.LogInfo.String(),
	}
	// logFile is used when the log output needs to be logged in a file
	logSaveFile = cli.BoolFlag{
		Name:  "log-save",
		Usage: "Boolean option for enabling log saving. If set, it will automatically save all the logs into a file.",
	}
	// workingDirectory defines a flag for the path for the working directory.
	workingDirectory = cli.StringFlag{
		Name:  "working-directory",
		Usage: "This flag specifies the `directory` where the harness will store databases and logs.",
		Value: "",
	}
	// configFile defines the path of the TOML configuration file
	configFile = cli.StringFlag{
		Name:  "config",
		Usage: "This flag specifies the `path` of the TOML configuration file.",
		Value: "./config.toml",
	}
	// envFile defines the path of the file holding the credentials
	envFile = cli.StringFlag{
		Name:  "env-file",
		Usage: "This flag specifies the `path` of the .env file holding the login credentials.",
		Value: "./.env",
	}
	// mockTarget starts the built-in stand-in API and points the harness at it
	mockTarget = cli.BoolFlag{
		Name:  "mock-target",
		Usage: "Boolean option for starting the built-in mock target API and running the suite against it.",
	}
)

func main() {
	app := cli.NewApp()
	cli.AppHelpTemplate = helpTemplate
	app.Name = "API load test harness"
	app.Version = fmt.Sprintf("%s/%s/%s-%s", appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	app.Usage = "This is the entry point for running the latency and resource checks against a deployed API server"
	app.Flags = []cli.Flag{
		logLevel,
		logSaveFile,
		workingDirectory,
		configFile,
		envFile,
		mockTarget,
	}
	app.Commands = []cli.Command{
		historyCommand,
	}
	app.Authors = []cli.Author{
		{
			Name:  "Iulian Pascalau",
			Email: "iulian.pascalau@gmail.com",
		},
	}

	app.Action = run

	defer func() {
		if fileLogging != nil {
			_ = fileLogging.Close()
		}
	}()

	err := app.Run(os.Args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	saveLogFile := ctx.GlobalBool(logSaveFile.Name)
	workingDir := ctx.GlobalString(workingDirectory.Name)

	err := logger.SetLogLevel(ctx.GlobalString(logLevel.Name))
	if err != nil {
		return err
	}

	fileLogging, err = commonGo.AttachFileLogger(log, defaultLogsPath, logFilePrefix, saveLogFile, workingDir)
	if err != nil {
		return err
	}

	if !check.IfNil(fileLogging) {
		timeLogLifeSpan := time.Second * time.Duration(logFileLifeSpanInSec)
		sizeLogLifeSpanInMB := uint64(logFileLifeSpanInMB)
		err = fileLogging.ChangeFileLifeSpan(timeLogLifeSpan, sizeLogLifeSpanInMB)
		if err != nil {
			return err
		}
	}

	log.Info("Starting load test harness", "version", appVersion, "pid", os.Getpid())

	requiredEnv := map[string]string{
		envLoginUsername: "",
		envLoginPassword: "",
	}
	optionalEnv := map[string]string{
		envReportAPIKey: "",
	}
	err = commonGo.ReadEnvFile(ctx.GlobalString(envFile.Name), requiredEnv, optionalEnv)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(ctx.GlobalString(configFile.Name))
	if err != nil {
		return err
	}

	handler, err := factory.NewComponentsHandler(factory.ArgsComponentsHandler{
		Config: *cfg,
		Credentials: suite.Credentials{
			Username: requiredEnv[envLoginUsername],
			Password: requiredEnv[envLoginPassword],
		},
		ReportAPIKey: optionalEnv[envReportAPIKey],
		StartMock:    ctx.GlobalBool(mockTarget.Name),
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	err = handler.Start()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			log.Info("Interrupt received, stopping the run and publishing the completed cases...")
			cancel()
		case <-runCtx.Done():
		}
	}()

	report, err := handler.Run(runCtx)
	if err != nil {
		return err
	}

	log.Info("Load test harness finished", "run", report.RunID, "target", handler.TargetURL(),
		"cases", len(report.Cases), "failed", report.NumFailed())

	if !report.Passed() {
		return fmt.Errorf("%d of %d case(s) failed", report.NumFailed(), len(report.Cases))
	}

	return nil
}
