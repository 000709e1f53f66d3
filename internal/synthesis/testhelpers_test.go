package synthesis

import "github.com/mycelian/servicenow-mcp/client"

const testInstance = "https://test.service-now.com"

func sampleArticles() []client.Article {
	return []client.Article{
		{
			ID:            "article-1",
			Number:        "KB001",
			Title:         "Employee Vacation Policy",
			Body:          "<p>Employees are entitled to vacation time based on years of service. Full-time employees receive 2 weeks initially, increasing to 3 weeks after 2 years.</p>",
			Topic:         "HR",
			Category:      "Policies",
			State:         "published",
			RequiredRoles: "employee",
			ViewCount:     150,
			HelpfulCount:  25,
			Link:          testInstance + "/kb_view.do?sysparm_article=KB001",
		},
		{
			ID:           "article-2",
			Number:       "KB002",
			Title:        "Vacation Request Process",
			Body:         "<p>Submitting a request through the employee portal takes a few minutes.</p><p>1. Log in to the employee portal<br/>2. Click on Request Time Off<br/>3. Select your dates and submit</p>",
			Topic:        "HR",
			Category:     "Procedures",
			State:        "published",
			ViewCount:    75,
			HelpfulCount: 12,
			Link:         testInstance + "/kb_view.do?sysparm_article=KB002",
		},
		{
			ID:           "article-3",
			Number:       "KB003",
			Title:        "Holiday Calendar 2024",
			Body:         "Company holidays for 2024 include New Year's Day, Memorial Day, Independence Day, Labor Day, Thanksgiving, and Christmas.",
			Topic:        "HR",
			Category:     "Calendar",
			State:        "published",
			ViewCount:    200,
			HelpfulCount: 30,
			Link:         testInstance + "/kb_view.do?sysparm_article=KB003",
		},
	}
}

func sampleResult(query string) *client.SearchResult {
	articles := sampleArticles()
	return &client.SearchResult{
		Articles:      articles,
		TotalCount:    len(articles),
		Query:         query,
		RelatedTopics: []string{"HR", "Policies", "Procedures", "Calendar"},
	}
}
