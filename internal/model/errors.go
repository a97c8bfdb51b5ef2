package model

import "errors"

var ErrNotAnObject = errors.New("json value is not an object")
