// internal/status/constants.go
package status

// Status block layout constants.
// These values define the mirror protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of register slots per status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the link health code.
const SlotHealthCode = 0

// SlotLastErrorFlag is 1 while a last error is recorded, 0 otherwise.
const SlotLastErrorFlag = 1

// SlotReconnectAttempts holds the current reconnect attempt counter.
const SlotReconnectAttempts = 2

// SlotMaxReconnectAttempts holds the reconnect budget.
const SlotMaxReconnectAttempts = 3

// ---- RESERVED RANGE ----

// Slots 4-10 are reserved for future use and always written as zero.

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before the first open attempt.
const HealthUnknown uint16 = 0

// HealthOK represents an open link.
const HealthOK uint16 = 1

// HealthError represents a closed link waiting for a reconnect.
const HealthError uint16 = 2

// HealthOpening represents an open attempt in flight.
const HealthOpening uint16 = 3

// HealthGivenUp represents an exhausted reconnect budget.
const HealthGivenUp uint16 = 4
