package tensor

import "fmt"

// Device tags where a tensor's values live. Every tensor used with one
// network instance must carry the same device as the network's parameters.
type Device string

const CPU Device = "cpu"

func ParseDevice(s string) (Device, error) {
	switch s {
	case "", "cpu":
		return CPU, nil
	default:
		return "", fmt.Errorf("unsupported device: %s", s)
	}
}
