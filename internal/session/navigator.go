package session

import "context"

// JarNavigator records navigations on the request's Jar; the HTTP layer
// turns them into a redirect hint on the response.
type JarNavigator struct{}

func (JarNavigator) CurrentPath(ctx context.Context) string {
	if jar := JarFrom(ctx); jar != nil {
		return jar.path()
	}
	return ""
}

func (JarNavigator) Navigate(ctx context.Context, path string) {
	if jar := JarFrom(ctx); jar != nil {
		jar.navigate(path)
	}
}
