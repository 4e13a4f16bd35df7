package demand

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "demand")
