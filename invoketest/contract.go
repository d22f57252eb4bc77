// Package invoketest provides a contract test suite for cexec providers.
//
// Every Environment implementation is expected to pass Verify; the contracts
// drive it both directly and through cexec.Runner, so a provider that passes
// behaves the same under the Executor as the local one.
package invoketest

// AllContracts returns all test cases for the contract test suite.
func AllContracts() []TestCase {
	const initialCapacity = 32

	contracts := make([]TestCase, 0, initialCapacity)

	contracts = append(contracts, coreContracts()...)
	contracts = append(contracts, streamingContracts()...)
	contracts = append(contracts, environmentContracts()...)
	contracts = append(contracts, systemContracts()...)
	contracts = append(contracts, errorContracts()...)

	return contracts
}
