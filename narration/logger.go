package narration

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "narration")
