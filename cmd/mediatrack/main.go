// Package main provides the entry point for the mediatrack CLI.
//
// mediatrack finds the images and videos on a web page, frames each one
// with an overlay for crowd-sourced "fake or real" voting, and can send
// images to a deepfake classifier.
//
// Usage:
//
//	mediatrack track <page-url>
//	mediatrack ctl start
//	mediatrack serve
//
// See --help for all available options.
package main

// main is the entry point for mediatrack.
func main() {
	Execute()
}
