// Package util holds small helpers shared by the config, models and server
// packages: optional-value pointers, size strings and secret masking.
package util
