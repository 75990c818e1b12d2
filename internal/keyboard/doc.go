// Package keyboard provides keystroke sources for the badge decoder.
//
// Device reads a Linux evdev node directly, optionally grabbing it so scanned
// digits do not leak into the console, and translates key codes through a US
// layout. HotplugSource wraps a Device with a udev netlink monitor so the
// subscription survives the scanner being unplugged and reconnected.
// LineSource turns a line-oriented reader such as stdin into bursts of
// keystrokes for development and headless kiosks.
//
// All sources satisfy barcode.KeySource.
package keyboard
