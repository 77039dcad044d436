package models

import "errors"

// ErrValidation возвращается для некорректных значений перечислений и сумм.
var ErrValidation = errors.New("validation error")
