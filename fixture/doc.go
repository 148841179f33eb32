// Package fixture provisions harness servers for tests.
//
// Per test:
//
//	func TestClient(t *testing.T) {
//	    fixture.IsolateEnv(t)
//	    srv := fixture.Serve(t, nil)
//	    resp, err := http.Get(srv.URL() + "/echo_headers")
//	    ...
//	    if err := srv.RequestRestart(ctx); err != nil {
//	        t.Fatal(err)
//	    }
//	}
//
// Per package, with a plain and a TLS server shared by every test:
//
//	var suite *fixture.Suite
//
//	func TestMain(m *testing.M) {
//	    os.Exit(fixture.RunSuite(m, nil, func(s *fixture.Suite) { suite = s }))
//	}
//
// Ports default to 0 so parallel test binaries never collide; the bound
// port stays fixed across restarts.
package fixture
