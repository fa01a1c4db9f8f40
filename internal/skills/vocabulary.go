package skills

// DefaultVocabulary is the ordered list of skill tags recognized in job
// descriptions.
var DefaultVocabulary = []string{
	// Languages
	"JavaScript", "TypeScript", "Python", "Java", "C", "C++", "C#",
	"Go", "Rust", "Kotlin", "Swift", "Dart", "PHP", "Ruby", "Scala",

	// Frontend
	"React", "Angular", "Vue", "Next.js", "Nuxt", "Redux",
	"HTML", "CSS", "Sass", "Tailwind", "Bootstrap", "Webpack", "Vite",

	// Backend
	"Node.js", "Express", "NestJS", "Spring", "Spring Boot",
	"Django", "Flask", "FastAPI", "ASP.NET", "Laravel", "Ruby on Rails",

	// Mobile
	"Android", "iOS", "React Native", "Flutter", "Xamarin",

	// Databases
	"SQL", "MySQL", "PostgreSQL", "MongoDB", "Redis",
	"DynamoDB", "Cassandra", "SQLite", "Elasticsearch",

	// Cloud and DevOps
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform",
	"Ansible", "Jenkins", "GitHub Actions", "CI/CD",
	"CloudFormation", "Helm",

	// Architecture
	"Microservices", "REST", "GraphQL", "gRPC", "Event-driven",
	"Kafka", "RabbitMQ", "System Design",

	// Data and AI
	"TensorFlow", "PyTorch", "Pandas", "NumPy", "Scikit-learn",
	"Spark", "Hadoop", "Airflow", "Databricks", "MLflow",

	// Security
	"OAuth", "JWT", "Encryption", "Penetration Testing",
	"OWASP", "IAM", "Network Security",

	// Testing
	"Selenium", "Cypress", "Playwright", "JUnit", "Mocha",
	"Jest", "TestNG", "Appium",

	// Product and design
	"Figma", "Sketch", "Adobe XD", "User Research",
	"Wireframing", "Prototyping", "Design Systems",
	"Usability Testing",

	// Tools
	"Git", "SVN", "JIRA", "Confluence", "Agile", "Scrum", "Kanban",
}
