package cfloader

import "github.com/quadlink/cfloader/internal/bootloader"

// Target identifies one of the two bootloader state machines on the
// device: the STM32 flight controller or the nRF51 radio MCU. It is a
// tagged variant rather than a raw wire byte so callers cannot construct an
// arbitrary identifier: besides STM32 and NRF51 the only value they can
// hold is the zero value Target{}, which denotes no valid target.
type Target = bootloader.Target

// STM32 is the flight-controller bootloader target.
var STM32 = bootloader.STM32

// NRF51 is the radio-MCU bootloader target.
var NRF51 = bootloader.NRF51
