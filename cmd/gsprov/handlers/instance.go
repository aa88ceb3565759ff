package handlers

import (
	"fmt"

	"github.com/google/uuid"
)

var newUUID = uuid.NewString

// InstanceID prints a fresh identifier suitable for --instance-id.
func InstanceID() error {
	_, err := fmt.Fprintln(stdout, newUUID())
	return err
}
