// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log provides leveled logging for the acquisition core.
//
// Time/Date are not logged because systemd adds them for us by default;
// pass -logdate to enable timestamps explicitly.
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelNote
	levelWarn
	levelError
	levelCrit
)

var levelNames = map[string]level{
	"debug":  levelDebug,
	"info":   levelInfo,
	"notice": levelNote,
	"warn":   levelWarn,
	"err":    levelError,
	"fatal":  levelError,
	"crit":   levelCrit,
}

var (
	minLevel    = levelDebug
	logDateTime bool
)

type lineLogger struct {
	lvl    level
	prefix string
	flags  int
	out    io.Writer
}

func newLineLogger(lvl level, prefix string, flags int) *lineLogger {
	return &lineLogger{lvl: lvl, prefix: prefix, flags: flags, out: os.Stderr}
}

func (l *lineLogger) enabled() bool { return l.lvl >= minLevel }

func (l *lineLogger) output(s string) {
	if !l.enabled() {
		return
	}
	flags := l.flags
	if logDateTime {
		flags |= log.LstdFlags
	}
	log.New(l.out, l.prefix, flags).Output(3, s)
}

var (
	debugLog = newLineLogger(levelDebug, "<7>[DEBUG]    ", 0)
	infoLog  = newLineLogger(levelInfo, "<6>[INFO]     ", 0)
	noteLog  = newLineLogger(levelNote, "<5>[NOTICE]   ", log.Lshortfile)
	warnLog  = newLineLogger(levelWarn, "<4>[WARNING]  ", log.Lshortfile)
	errLog   = newLineLogger(levelError, "<3>[ERROR]    ", log.Llongfile)
	critLog  = newLineLogger(levelCrit, "<2>[CRITICAL] ", log.Llongfile)
)

// SetLogLevel sets the minimum level that is actually written out.
// Unrecognized values fall back to "debug".
func SetLogLevel(lvl string) {
	l, ok := levelNames[lvl]
	if !ok {
		fmt.Printf("pkg/log: flag 'loglevel' has invalid value %#v, using 'debug'\n", lvl)
		l = levelDebug
	}
	minLevel = l
}

// SetLogDateTime toggles a standard-library date/time prefix on every line.
func SetLogDateTime(logdate bool) {
	logDateTime = logdate
}

func Print(v ...interface{}) { infoLog.output(fmt.Sprint(v...)) }
func Debug(v ...interface{}) { debugLog.output(fmt.Sprint(v...)) }
func Info(v ...interface{})  { infoLog.output(fmt.Sprint(v...)) }
func Note(v ...interface{})  { noteLog.output(fmt.Sprint(v...)) }
func Warn(v ...interface{})  { warnLog.output(fmt.Sprint(v...)) }
func Error(v ...interface{}) { errLog.output(fmt.Sprint(v...)) }
func Crit(v ...interface{})  { critLog.output(fmt.Sprint(v...)) }

func Printf(format string, v ...interface{}) { infoLog.output(fmt.Sprintf(format, v...)) }
func Debugf(format string, v ...interface{}) { debugLog.output(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { infoLog.output(fmt.Sprintf(format, v...)) }
func Notef(format string, v ...interface{})  { noteLog.output(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { warnLog.output(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { errLog.output(fmt.Sprintf(format, v...)) }
func Critf(format string, v ...interface{})  { critLog.output(fmt.Sprintf(format, v...)) }

// Panic writes an error-level stacktrace line then panics; the process keeps
// running if the panic is recovered by the caller.
func Panic(v ...interface{}) {
	Error(v...)
	panic("panic triggered by log.Panic")
}

func Panicf(format string, v ...interface{}) {
	Errorf(format, v...)
	panic("panic triggered by log.Panicf")
}

// Fatal writes an error line and terminates the process.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

// Abort behaves like Fatal but is used for startup-time configuration
// failures, mirroring the cclog.Abortf convention callers expect.
func Abort(v ...interface{}) {
	Error(v...)
	os.Exit(2)
}

func Abortf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(2)
}
