// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file discovery, parsing, expression evaluation and
// translation of the schema structs into the config model.
package hcl
