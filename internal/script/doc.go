// Package script loads the per-scene narration script and resolves the
// audio and image assets produced for each scene.
//
// Assets are located strictly by scene number (scene<N>.mp3, image<N>.jpg
// and their accepted variants); directory listing order is never consulted.
package script
