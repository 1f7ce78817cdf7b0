package perf

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "perf")
