package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	eParser "github.com/go-errors/errors"
)

var (
	// Log is the logger for progress output.
	Log *log.Logger
	// Error is the Logger for errors.
	Error *log.Logger
)

const errLogName = "error.log"

// Init creates logger instance to loggers.
func Init() {
	initLogger(os.Stdout)
	initErrorLogger()
}

// InitWith directs both loggers to w, no error log file is created.
func InitWith(w io.Writer) {
	initLogger(w)
	Error = log.New(w, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func initLogger(w io.Writer) {
	flag := log.Ldate | log.Ltime
	Log = log.New(w, "", flag)
}

func initErrorLogger() {
	f, err := os.OpenFile(errLogName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		panic(err)
	}

	errHandler := io.MultiWriter(os.Stderr, f)
	flag := log.Ldate | log.Ltime | log.Lshortfile
	Error = log.New(errHandler, "", flag)
}

// UpdatePrefix Sets new prefix.
func UpdatePrefix(prefix string) {
	if prefix != "" {
		prefix = fmt.Sprintf("[%s] ", prefix)
	}
	Log.SetPrefix(prefix)
	Error.SetPrefix(prefix)
}

// Stack returns err with the stack trace of the caller attached.
func Stack(err error) error {
	return errors.New(eParser.Wrap(err, 1).ErrorStack())
}

// Printf is the alias for Log.Printf
func Printf(format string, v ...interface{}) {
	Log.Printf(format, v...)
}

// Println is the alias for Log.Println
func Println(v ...interface{}) {
	Log.Println(v...)
}
