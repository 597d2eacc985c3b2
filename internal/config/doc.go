// Package config defines the format-agnostic job model and the Loader
// interface that concrete formats implement.
//
// A Model is a list of jobs, each a set of optional Settings. Settings
// carry no defaults: an unset field is nil and is resolved later, when the
// job is turned into a pipeline request.
package config
