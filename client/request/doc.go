// Package request compiles declarative request descriptions into
// wire-ready HTTP messages.
//
// A [Descriptor] names the method, path and body policy of a call, and
// points at a parameter struct whose tagged fields bind to the query
// string, request headers or a form body:
//
//	type ListWidgets struct {
//		Page   int      `query:"page"`
//		Tags   []string `query:"tag,collection=recursive"`
//		Colour Colour   `query:"colour,enum=lower"`
//		Trace  string   `header:"X-Trace-Id"`
//	}
//
//	d := &request.Descriptor{
//		Method: http.MethodGet,
//		Path:   "https://api.example.com/widgets",
//		Body:   request.BodyNone,
//		Params: ListWidgets{Page: 2, Tags: []string{"a", "b"}},
//	}
//	w, err := request.Compile(d, serializer.Default, nil)
//
// # Tag options
//
// query and form tags accept a name followed by comma-separated options:
//
//   - collection=concat|ordered|unordered|recursive selects how slices are
//     written: k=a,b / k[0]=a&k[1]=b / k[]=a&k[]=b / k=a&k=b.
//   - sep=X sets the concat separator (default ",").
//   - enum=name|lower|value selects how named integer types implementing
//     [fmt.Stringer] are written.
//   - format=LAYOUT sets the [time.Time] layout (default RFC 3339).
//   - omitempty skips zero values.
//
// A field tagged body marks the member serialized by [BodyMember].
//
// Bindings of embedded structs are emitted before those of the embedding
// struct. Shadowing follows Go field promotion: an outer field hides a
// promoted field with the same Go name, whatever their tags. Fields with
// different Go names are independent bindings even when they share a tag
// name, so both are written:
//
//	type Base struct{ Tag string `query:"tag"` }
//	type List struct {
//		Base
//		Label string `query:"tag"` // tag=<Base.Tag>&tag=<Label>
//	}
//
// Binding tables are built once per type and cached.
package request
