package client

// Arguments is the argument payload of a call. It is either Plain or WithResource.
type Arguments interface {
	// payload returns the encoded arguments and the attached resource (nil for Plain)
	payload() ([]byte, IAuxiliaryResource)
}

type plainArgs struct {
	value []byte
}

func (a plainArgs) payload() ([]byte, IAuxiliaryResource) { return a.value, nil }

type resourceArgs struct {
	value    []byte
	resource IAuxiliaryResource
}

func (a resourceArgs) payload() ([]byte, IAuxiliaryResource) { return a.value, a.resource }

// Plain creates arguments without an attached resource
func Plain(value []byte) Arguments {
	return plainArgs{value: value}
}

// WithResource creates arguments with an auxiliary resource attached to the call.
// The client owns the resource from now on and disconnects it when the call ends.
func WithResource(value []byte, resource IAuxiliaryResource) Arguments {
	if resource == nil {
		return plainArgs{value: value}
	}
	return resourceArgs{value: value, resource: resource}
}
