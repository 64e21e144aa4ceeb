// Package capiflash reprograms the configuration flash of CAPI/CXL FPGA
// accelerator cards through the flash controller registers exposed in the
// card's PCI configuration space.
//
// # References:
//
// PCI
//   - [PCIe-Base]: PCI Express Base Specification Revision 4.0, 7.6 PCI Express Extended Capabilities (https://pcisig.com/specifications)
//   - [PCIe-VSEC]: 7.9.5 Vendor-Specific Extended Capability
//
// CAPI
//   - [CAPI-VSEC]: IBM CAPI 1.0 PSL VSEC layout (version 0.10 legacy registers at 0x920, version 0.12 at VSEC+0x50)
//   - [capi-utils]: IBM capi-utils capi-flash-script / capi_flash (https://github.com/ibm-capi/capi-utils)
//
// Linux
//   - [sysfs-cxl]: /sys/class/cxl/card<N>/device/config (https://www.kernel.org/doc/Documentation/ABI/testing/sysfs-class-cxl)
package capiflash
