package reading

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "reading")
