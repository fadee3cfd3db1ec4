// Package hython drives a headless host interpreter as a subprocess.
//
// Every call starts the configured binary with an embedded bridge script,
// sends one JSON request on stdin and reads one tagged JSON line back. Scene
// state does not survive between calls, so parameter values set on a node are
// staged in memory and sent together with the button press; the scene file is
// saved after the press so the configured values persist.
package hython
