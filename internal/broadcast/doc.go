// Package broadcast implements the in-memory fragment store at the heart of
// the playcast relay.
//
// # Overview
//
// A Store owns match broadcasts keyed by an opaque token. Each match is an
// ordered sequence of fragments, indexed from 0; slot 0 is reserved for the
// start payload and match-level metadata (map, tps, keyframe interval,
// protocol, signup fragment). Everything is process-lifetime: nothing is
// persisted and nothing is evicted.
//
// API surface (internal)
//
//	st := broadcast.NewStore()
//	m, created := st.GetOrCreateMatch("dem0")
//	frag := m.GetOrCreateFragment(3)
//	frag.SetAttr("tick", "1920")           // numeric coercion at the boundary
//	frag.SetBlob("delta", blob)            // compressed payload + raw length
//	frag.MarkReceived(time.Now())          // single readiness transition
//
// A fragment is sync-ready once full, delta, tick, endtick and the receive
// timestamp are all present and any artificial CDN delay has elapsed. The
// delay gate is re-checked at serve time; data that exists may still be
// refused while its delay is pending.
//
// # Concurrency
//
// The store and each match carry their own RWMutex. Field writes within one
// fragment are individually atomic but overlapping ingests for the same
// fragment are not serialized against each other: whichever finishes last
// wins for the fields it touches. Readers only ever observe completed writes
// because the receive timestamp is assigned last.
package broadcast
