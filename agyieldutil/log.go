/*
Copyright © 2026 the AgYield authors.
This file is part of AgYield.

AgYield is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

AgYield is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with AgYield.  If not, see <http://www.gnu.org/licenses/>.
*/


package agyieldutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	log     *logrus.Logger
	logFile *os.File
)

// logger returns the logger configured by the LogLevel and LogFile
// options, or the standard logger if no command has been run.
func logger() *logrus.Logger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}

// setLogger sets up logging to the command output and, if
// LogFile is set, to that file.
func setLogger(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("agyield: invalid LogLevel: %v", err)
	}
	closeLogger()
	l := logrus.New()
	l.Level = level
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
	l.Out = cmd.OutOrStdout()
	if path := os.ExpandEnv(Cfg.GetString("LogFile")); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("agyield: problem creating log file: %v", err)
		}
		logFile = f
		l.Out = io.MultiWriter(l.Out, f)
	}
	log = l
	return nil
}

func closeLogger() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
