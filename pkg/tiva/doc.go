// Package tiva implements the board capabilities on top of the Tiva board
// controller's console. Every driver owns nothing but its console binding:
// it refuses to talk unless the target's arbiter has made it the active
// driver on that console.
//
// Each operation is a single command line terminated by "\r\n":
//
//	auto power on | auto power off
//	auto reset | auto por | auto por hold | auto por release
//	auto sysboot <code>
//	auto dut <name>
//	auto measure_power <samples> <delay-ms>
//
// The power meter reads the controller's reply up to the prompt and parses
// the rail table with telemetry.ExtractRailData.
package tiva
