package mesh

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DescriptorFile is one published connection fragment: the key/value text
// tincd consumes, named after the node it describes.
type DescriptorFile struct {
	Name    string
	Content []byte
}

// RenderDescriptor produces a node's descriptor purely from its record and
// the mesh transport policy. tincd appends the node's public key block to
// its own copy during key generation; that enriched copy is what gets
// exchanged back to the anchor.
func RenderDescriptor(n Node, s Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Address = %s\n", n.PublicAddr)
	fmt.Fprintf(&b, "Port = %d\n", n.Port)
	fmt.Fprintf(&b, "Subnet = %s/32\n", n.PrivateAddr)
	fmt.Fprintf(&b, "Cipher = %s\n", s.Cipher)
	fmt.Fprintf(&b, "Digest = %s\n", s.Digest)
	fmt.Fprintf(&b, "Compression = %d\n", s.Compression)
	b.WriteString("PMTU = yes\nPMTUDiscovery = yes\n")
	return b.String()
}

// RenderTincConf produces a node's tinc.conf. Members point at the anchor;
// the anchor itself has no ConnectTo.
func RenderTincConf(net string, self Node, anchor *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name = %s\n", self.Name)
	if anchor != nil && anchor.Name != self.Name {
		fmt.Fprintf(&b, "ConnectTo = %s\n", anchor.Name)
	}
	fmt.Fprintf(&b, "Port = %d\n", self.Port)
	b.WriteString("Device = /dev/net/tun\n")
	return b.String()
}

// RenderTincUp produces the interface-up script with an explicit MTU.
func RenderTincUp(n Node, s Settings, mtu int) string {
	bits, err := NetmaskBits(s.Netmask)
	if err != nil {
		bits = 24
	}
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "ip link set \"$INTERFACE\" mtu %d up\n", mtu)
	fmt.Fprintf(&b, "ip addr replace %s/%d dev \"$INTERFACE\"\n", n.PrivateAddr, bits)
	return b.String()
}

// RenderTincDown produces the interface-down script.
func RenderTincDown() string {
	return "#!/bin/sh\nip link set \"$INTERFACE\" down\n"
}

// WriteDescriptor renders and writes a node's descriptor into the local
// descriptor directory.
func WriteDescriptor(p Paths, n Node, s Settings) error {
	if err := os.MkdirAll(p.HostsDir(), 0o755); err != nil {
		return fmt.Errorf("create descriptor directory: %w", err)
	}
	return WriteDescriptorContent(p, n.Name, []byte(RenderDescriptor(n, s)))
}

// WriteDescriptorContent stores raw descriptor content, used when a peer's
// key-bearing descriptor is read back after bootstrap.
func WriteDescriptorContent(p Paths, name string, content []byte) error {
	if err := os.WriteFile(p.Descriptor(name), content, 0o644); err != nil {
		return fmt.Errorf("write descriptor %s: %w", name, err)
	}
	return nil
}

// ReadDescriptor returns a descriptor's current content.
func ReadDescriptor(p Paths, name string) ([]byte, error) {
	data, err := os.ReadFile(p.Descriptor(name))
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", name, err)
	}
	return data, nil
}

// RemoveDescriptor deletes a descriptor from the local directory. Removing
// an absent descriptor is not an error.
func RemoveDescriptor(p Paths, name string) error {
	if err := os.Remove(p.Descriptor(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove descriptor %s: %w", name, err)
	}
	return nil
}

// Descriptors returns the complete current descriptor directory in a stable
// order.
func Descriptors(p Paths) ([]DescriptorFile, error) {
	entries, err := os.ReadDir(p.HostsDir())
	if err != nil {
		return nil, fmt.Errorf("read descriptor directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	files := make([]DescriptorFile, 0, len(names))
	for _, name := range names {
		content, err := ReadDescriptor(p, name)
		if err != nil {
			return nil, err
		}
		files = append(files, DescriptorFile{Name: name, Content: content})
	}
	return files, nil
}
