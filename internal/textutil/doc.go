// Package textutil derives filesystem-safe names from script titles.
package textutil
