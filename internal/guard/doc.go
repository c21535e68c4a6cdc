// Package guard watches a stream of navigation events and, when the
// location lands on a blocked path, shows a countdown and sends the user
// back to the home page unless they dismiss it first.
package guard
