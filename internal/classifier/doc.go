// Package classifier sends images to the deepfake classifier service and
// turns its verdict into display text.
//
// The service accepts a multipart POST with one JPEG in the "file" field
// and answers {"fake_probability": p} with p in [0, 1]. Any other reply is
// treated as invalid.
package classifier
