// Package serializer provides record serializers for records.Manager.
//
// JSON writes indented JSON with the ".json" extension and ignores unknown
// fields when decoding. YAML uses gopkg.in/yaml.v3 with the ".yaml"
// extension. Both report undecodable content as *interfaces.FormatError.
package serializer
