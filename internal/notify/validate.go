package notify

import "regexp"

var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

// ValidateSubscribers checks every address as given; surrounding whitespace
// makes an address invalid. The first invalid address is returned as a
// *ValidationError.
func ValidateSubscribers(addrs []string) error {
	for i, addr := range addrs {
		if !emailPattern.MatchString(addr) {
			return &ValidationError{Address: addr, Index: i}
		}
	}
	return nil
}
