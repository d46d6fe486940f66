package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeAdvertisementTXT creates TXT records for charger discovery.
func EncodeAdvertisementTXT(info *Advertisement) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeySerial] = info.Serial
	txt[TXTKeyBrand] = info.Brand
	txt[TXTKeyModel] = info.Model

	// Optional fields
	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}

	return txt
}

// DecodeAdvertisementTXT parses TXT records from charger discovery.
// All fields are advisory, so missing keys decode to empty strings rather
// than errors; a charger with a sparse advertisement is still a usable
// candidate.
func DecodeAdvertisementTXT(txt TXTRecordMap) *Advertisement {
	return &Advertisement{
		Serial:     txt[TXTKeySerial],
		Brand:      txt[TXTKeyBrand],
		Model:      txt[TXTKeyModel],
		Firmware:   txt[TXTKeyFirmware],
		DeviceName: txt[TXTKeyDeviceName],
	}
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
