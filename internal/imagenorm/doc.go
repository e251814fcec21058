// Package imagenorm letterboxes still images onto the fixed output canvas.
//
// Sources of any aspect ratio are scaled to fit, centred and padded with an
// opaque background so every scene clip shares one frame size. Results are
// cached by destination path: an existing destination is never rewritten.
package imagenorm
