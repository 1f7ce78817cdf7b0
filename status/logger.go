package status

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "status")
