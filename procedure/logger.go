package procedure

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "procedure")
