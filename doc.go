// Package vidsteg implements video LSB steganography: hiding an arbitrary
// payload inside the least-significant bits of video frame pixels, after
// encrypting it under a password-derived key and protecting it with
// Reed-Solomon forward error correction.
//
// The package is the codec core. It performs no I/O, holds no global state,
// and is safe to invoke concurrently on independent inputs. Video
// demux/mux, HTTP surfaces, and task orchestration live in the video,
// server, and cmd packages, which treat this core as a black box.
//
// Example:
//
//	cfg := vidsteg.DefaultConfig()
//	cfg.FrameIndices = []int{10, 42, 99}
//
//	result, err := vidsteg.Embed(frames, payload, password, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Carry result.Sidecar out-of-band; write the mutated frames back
//	// into the carrier with the video package.
//
//	recovered, err := vidsteg.Extract(frames, result.Sidecar, password, cfg)
//
// Embedding and extraction are exact inverses: for any payload, password,
// and valid configuration with sufficient capacity, extraction returns the
// original bytes bit for bit. With GCM mode a wrong password fails loudly
// with ErrAuthenticationFailed; with CBC, CTR, or CFB it silently yields
// garbage, an inherent property of unauthenticated modes.
package vidsteg
