package server

// IdentityServerConfig assigns the stable (datacenter, worker) pair used by
// the calibration ID generator. Every process in a deployment needs a
// distinct pair; each value is bounded to 0-31.
type IdentityServerConfig struct {
	DatacenterID int64 `mapstructure:"datacenter_id" yaml:"datacenter_id"`
	WorkerID     int64 `mapstructure:"worker_id"     yaml:"worker_id"`
}
