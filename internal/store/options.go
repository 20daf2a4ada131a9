package store

import "time"

// Options wires the backends shared by every collection.
type Options struct {
	Remote RemoteStore
	Local  LocalStore
	Policy CachePolicy
	Locker Locker
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Local == nil {
		o.Local = NewMemoryLocal()
	}
	if o.Policy == nil {
		o.Policy = ManualPolicy()
	}
	if o.Locker == nil {
		o.Locker = noopLocker{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
