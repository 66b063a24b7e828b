// Package ctxmix implements a context-mixing bit predictor driving a binary
// arithmetic coder.
//
// Each bit of the input is predicted by several models. A gated linear
// network in the stretched logistic domain mixes their predictions, and the
// mixed probability drives a 32-bit arithmetic coder. After the bit is coded
// every model and every mixer node learns from it. The decoder repeats the
// same predictions in the same order, so both sides stay in lock step.
//
// # Architecture Overview
//
//   - Mixer: one node per context set. Each node selects a weight row by a
//     context value, computes a fixed-point dot product and feeds a
//     combiner node, which produces the final probability.
//   - Kernels: the dot product and training step, once per instruction-set
//     variant (scalar, SSE2, AVX2, NEON). All variants return identical
//     integers, so streams written on one machine decode on any other.
//   - Coder: carry-less arithmetic coding with 28-bit probabilities and
//     pending-bit handling for underflow.
//   - Codec: the byte-stream driver, a small container header with a CRC,
//     statistics and Prometheus metrics.
//
// # Basic Usage
//
//	cmpack compress notes.txt
//	cmpack decompress notes.txt.cmx
//	cmperf verify
//
// From Go:
//
//	cfg, err := config.Load("ctxmix.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine := codec.NewEngine(cfg, codec.WithLogger(slog.Default()))
//	stats, err := engine.Compress(ctx, in, out)
//
// # Package Structure
//
//   - core: cache-line alignment and the arena that backs mixer weights
//   - kernels: variant catalog, dot and train kernels, squash and stretch
//   - coder: Encoder and Decoder
//   - mixer: Shared state, update broadcaster, Mixer nodes
//   - model: adaptive counters and the order-N Predictor
//   - config: YAML configuration and validation
//   - codec: Engine, container header, Stats and Metrics
//   - cmd: command-line tools (cmpack, cmperf)
package ctxmix
