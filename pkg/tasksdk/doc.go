// Package tasksdk is a Go client for the taskboard API.
//
// A Client performs the unauthenticated calls: registration, login and the
// health probes. Logging in returns a Session, which carries the access
// token on every call and transparently rotates the token pair when the
// server reports it has expired:
//
//	client := tasksdk.NewClient("http://localhost:5000")
//	sess, err := client.Login(ctx, "ada@example.com", "secret1",
//		tasksdk.WithTokenStore(tasksdk.NewFileStore(path)),
//		tasksdk.WithOnSessionExpired(func() { log.Println("please log in again") }),
//	)
//	if err != nil {
//		return err
//	}
//	task, err := sess.CreateTask(ctx, tasksdk.CreateTaskRequest{Title: "Buy milk"})
//
// Concurrent calls that hit a 401 share one refresh. If that refresh fails
// the session is expired: its tokens are cleared, the OnSessionExpired hook
// runs once, and every call returns ErrSessionExpired until Login succeeds
// again.
package tasksdk
