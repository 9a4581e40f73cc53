// Package textutil holds small string helpers shared by the CLI and the
// publisher: object key sanitizing and human labels for snake_case keys.
package textutil
