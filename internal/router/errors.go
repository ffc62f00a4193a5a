package router

import "errors"

var ErrNoRoute = errors.New("no route for operation")
