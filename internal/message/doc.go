// Package message decodes and encodes HDF5 object header messages.
//
// Every message type the record layer touches can be read and written:
// dataspace, datatype, fill value, link, link info, group info, data layout
// and attribute. Continuations are read only. Symbol tables, filter
// pipelines and chunked layouts found in existing files are decoded and
// written back unchanged. Anything else is kept as an [Unknown] message
// and written back byte for byte when its header is rewritten.
//
// Writers implement [Encoder]. Encoding always uses the current format
// versions (dataspace 2, datatype 1 or 3, layout 3, attribute 3, fill value
// 3), while parsing also accepts the older versions still found in files
// produced by other tools.
//
//	msg, err := message.Parse(message.TypeDatatype, body, cfg)
//	dt := msg.(*message.Datatype)
package message
