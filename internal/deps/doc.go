// Package deps checks that the external media tools scrolla drives are
// installed and capable of the filter graphs it builds.
package deps
